package cli

// StringFlag is a definition of a command flag expected to be parsed as a
// string. The value can be taken from the environment variables when the flag
// is not set.
//
// - implements cli.Flag
type StringFlag struct {
	Name     string
	Aliases  []string
	EnvVars  []string
	Usage    string
	Required bool
	Value    string
}

// Flag implements cli.Flag.
func (flag StringFlag) Flag() {}

// PathFlag is a definition of a command flag expected to be parsed as a path
// on the filesystem.
//
// - implements cli.Flag
type PathFlag struct {
	Name     string
	Aliases  []string
	EnvVars  []string
	Usage    string
	Required bool
	Value    string
}

// Flag implements cli.Flag.
func (flag PathFlag) Flag() {}

// BoolFlag is a definition of a command flag expected to be parsed as a
// boolean.
//
// - implements cli.Flag
type BoolFlag struct {
	Name    string
	EnvVars []string
	Usage   string
	Value   bool
}

// Flag implements cli.Flag.
func (flag BoolFlag) Flag() {}
