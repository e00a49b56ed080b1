package env

// Args are the command line switches shared by both ends of the link.
type Args struct {
	ConfigPath string
	Test       bool
	Verbose    bool
	Calibrate  bool
	Demo       bool
	TUI        bool
}
