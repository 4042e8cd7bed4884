package scope

import (
	"fmt"
	"strings"
)

const (
	rigolManufacturer = "RIGOL TECHNOLOGIES"
	familyPrefix      = "DS1"
	familySuffix      = "Z"
)

// Identity is the parsed reply of *IDN?.
type Identity struct {
	Manufacturer string
	Model        string
	Serial       string
	Firmware     string
	// Raw is the reply without its line terminator.
	Raw string
}

// ParseIdentity splits an *IDN? reply of the form
// "<manufacturer>,<model>,<serial>,<firmware>". Missing fields are left empty.
func ParseIdentity(reply string) Identity {
	raw := strings.TrimRight(reply, "\r\n")
	id := Identity{Raw: raw}

	fields := strings.SplitN(raw, ",", 4)
	for i, f := range fields {
		f = strings.TrimSpace(f)
		switch i {
		case 0:
			id.Manufacturer = f
		case 1:
			id.Model = f
		case 2:
			id.Serial = f
		case 3:
			id.Firmware = f
		}
	}

	return id
}

// IsDS1000Z reports whether the identity belongs to a Rigol DS1000Z series
// oscilloscope: the manufacturer is RIGOL TECHNOLOGIES and the model starts with
// "DS1" and ends with "Z".
func (id Identity) IsDS1000Z() bool {
	return id.Manufacturer == rigolManufacturer &&
		strings.HasPrefix(id.Model, familyPrefix) &&
		strings.HasSuffix(id.Model, familySuffix)
}

func (id Identity) String() string {
	return fmt.Sprintf("%s %s (serial %s, firmware %s)", id.Manufacturer, id.Model, id.Serial, id.Firmware)
}
