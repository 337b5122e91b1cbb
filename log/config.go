package log

// Config for log
type Config struct {
	// Environment defining the log format ("production" or "development").
	// In development mode enables development mode (which makes DPanicLevel logs panic),
	// uses a console encoder, writes to standard error, and disables sampling.
	// Stacktraces are automatically included on logs of WarnLevel and above.
	Environment LogEnvironment `mapstructure:"Environment"`

	// Level of log. As lower value more logs are going to be generated
	Level string `mapstructure:"Level"`

	// Outputs
	Outputs []string `mapstructure:"Outputs"`
}
