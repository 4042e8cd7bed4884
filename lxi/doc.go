// Package lxi provides the transport session used to talk to an LXI instrument
// over its raw SCPI socket (TCP port 5555 on Rigol oscilloscopes).
//
// A Session owns exactly one TCP connection. Commands are newline-terminated
// ASCII lines; replies are read until a newline arrives or the idle read
// timeout elapses with no new bytes. A timeout is not an error: ReadLine returns
// whatever was accumulated, which may be empty or lack the trailing newline.
//
// Binary replies (screen captures, waveform dumps) start with an IEEE 488.2 block
// header (see package tmc). Their payload may contain newline bytes and may be
// flushed by the instrument across several TCP segments that arrive after the
// first read has already gone idle. ReadBlock keeps reading until the declared
// length is reached, a read comes back empty, or the configured transfer window
// elapses, whichever happens first.
//
// Sessions are not goroutine-safe. One command is outstanding at a time, and the
// caller must Close the session on every exit path to release the instrument's
// LAN session.
//
// Usage Example:
//
//	cfg, err := lxi.NewConnectionConfig("192.168.1.3", lxi.DefaultPort,
//	    lxi.WithReadTimeout(time.Second),
//	    lxi.WithTransferWindow(30*time.Second),
//	)
//	// ... handle error ...
//	session, err := lxi.Dial(ctx, cfg)
//	// ... handle error ...
//	defer session.Close()
//
//	id, err := session.Command("*IDN?")
//	png, err := session.QueryBlock(ctx, ":DISP:DATA? ON,OFF,PNG")
package lxi
