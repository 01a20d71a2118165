package derived

import (
	"fmt"
	"strings"
)

// DataNotFoundError is returned when every requested channel came back empty.
type DataNotFoundError struct {
	Channels []string
}

func (e *DataNotFoundError) Error() string {
	return fmt.Sprintf("no data found for channels [%s] in the requested range", strings.Join(e.Channels, ", "))
}
