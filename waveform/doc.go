/*
Package waveform turns the ASCII sample dumps returned by ":WAV:DATA?" into a
comma-separated table with one column per displayed channel.

Channels are merged one at a time in the instrument's preference order. The
first channel seeds the rows; every later channel appends one cell to each
existing row. When a later channel has more samples than any earlier one, the
extra rows start with a single empty cell followed by the new value. The
padding is always one cell wide, however many columns already exist, and rows
of shorter channels are never padded at the end. Tools that consume these files
rely on that layout, so the table reproduces it as is.

Usage:

	table := waveform.NewTable()
	for _, name := range waveform.ChannelOrder {
		samples := waveform.ParseSamples(payload[name])
		table.AddChannel(waveform.NewChannelTrace(name, samples))
	}
	_ = table.WriteCSV(file)
*/
package waveform
