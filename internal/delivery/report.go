package delivery

import (
	"fmt"
	"io"
)

// WriteReport prints the console report of a pass
func WriteReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "\n# messages found: %d\n", r.Considered)

	if len(r.Outcomes) == 0 {
		fmt.Fprint(w, "\nDONE ...\n\n")
		return
	}

	fmt.Fprint(w, "\tProcessing:\n")
	for i, o := range r.Outcomes {
		fmt.Fprintf(w, "\n\tMSG #%d", i+1)
		switch {
		case o.LastError != "":
			fmt.Fprintf(w, "\n\tError: %s", o.LastError)
		case o.Err != nil:
			fmt.Fprintf(w, "\n\tError: %v", o.Err)
		}
	}
	fmt.Fprint(w, "\nDONE ...\n")
}
