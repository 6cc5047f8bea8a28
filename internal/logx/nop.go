package logx

// nop discards every entry.
type nop struct{}

var discard Logger = nop{}

// Nop returns a Logger that drops everything, for tests and optional wiring.
func Nop() Logger { return discard }

func (nop) Debug(string, ...Field) {}
func (nop) Info(string, ...Field)  {}
func (nop) Warn(string, ...Field)  {}
func (nop) Error(string, ...Field) {}
func (n nop) With(...Field) Logger { return n }
func (nop) Sync() error            { return nil }
