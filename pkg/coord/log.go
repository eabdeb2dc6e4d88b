package coord

type Logger interface {
	Debug(int, string, ...interface{})
	Info(string, ...interface{})
	Error(string, ...interface{})
}

// NopLogger discards everything. Components default to it when they are
// built outside of a node.
type NopLogger struct{}

func (NopLogger) Debug(int, string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})       {}
func (NopLogger) Error(string, ...interface{})      {}
