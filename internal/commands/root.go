package commands

// Version is set at build time.
var Version = "0.1.0"

// ExecuteRedefine runs the redefine tool.
func ExecuteRedefine() error {
	return NewRedefineCmd().Execute()
}

// ExecuteXcode runs the xcodeupdate tool.
func ExecuteXcode() error {
	return NewXcodeCmd().Execute()
}
