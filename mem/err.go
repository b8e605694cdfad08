package mem

import (
	"github.com/ezrec/c6461/translate"
)

var f = translate.From

// ErrAddressRange reports an access outside the 2048-word store.
type ErrAddressRange uint16

func (err ErrAddressRange) Error() string {
	return f("address %04o beyond memory", uint16(err))
}
