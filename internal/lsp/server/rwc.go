package server

import "os"

// RWC is the stdio transport for the language server. Editors speak LSP
// over the child process's stdin/stdout; jsonrpc2 wants those two streams
// as a single io.ReadWriteCloser.
type RWC struct{}

func NewStdRWC() RWC { return RWC{} }

func (RWC) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (RWC) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// Close is a no-op: the editor owns the process lifetime, and closing
// the real stdin/stdout would tear down a stream we do not own.
func (RWC) Close() error { return nil }
