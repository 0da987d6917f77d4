package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing or invalid config, unknown profile)
	ExitDataError   = 3 // Data error (no benchmark results, unreadable baseline)
	ExitRegression  = 4 // A significant regression exceeded --fail-on-regression
	ExitGitError    = 5 // Git operation failed (staging or committing the baseline)
)
