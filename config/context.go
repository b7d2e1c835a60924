package config

// Context is passed to every command.
type Context struct {
	Config  *Config
	Modules []ModuleI
}
