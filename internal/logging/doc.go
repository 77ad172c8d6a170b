// Package logging provides structured logging for the provision CLI using slog.
//
// Every provisioning step reports through a single severity-tagged line:
//
//	10:42AM INFO  checking package manager
//	10:42AM OK    system packages already installed count=14
//	10:43AM WARN  vscode extension failed id=vadimcn.vscode-lldb
//	10:43AM ERROR android command-line tools download failed
//
// [LevelOK] and [LevelTrace] extend the standard slog levels. The text
// [Handler] colours tags when the writer is a terminal; JSON output is
// available for machine consumption, and [MultiHandler] tees records to a
// log file.
//
// # Testing
//
// For tests, use [ForTest] to capture log output via the testing framework:
//
//	func TestSomething(t *testing.T) {
//		logger := logging.ForTest(t)
//		// logs appear in test output on failure
//	}
package logging
