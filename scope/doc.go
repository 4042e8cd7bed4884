/*
Package scope drives a Rigol DS1000Z series oscilloscope through a SCPI
transport such as an lxi.Session.

A Scope knows the instrument's command vocabulary: it identifies the
instrument, finds the displayed channels, downloads the screen image in one
of the supported image formats, and reads the displayed portion of each
channel's waveform into a waveform.Table.

Usage:

	cfg, err := lxi.NewConnectionConfig("192.168.1.3", lxi.DefaultPort)
	if err != nil {
		return err
	}

	session, err := lxi.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	dso, err := scope.New(session)
	if err != nil {
		return err
	}

	id, err := dso.Identify()
	if err != nil {
		return err
	}

	png, err := dso.CaptureScreen(ctx, scope.PNG)
*/
package scope
