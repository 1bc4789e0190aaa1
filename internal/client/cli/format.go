package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/client/services"
	"github.com/dmitrijs2005/keepsearch/internal/client/session"
)

const (
	notSet       = "(not set)"
	maskedSecret = "********"
)

func printResults(w io.Writer, res services.SearchResult) {
	if len(res.Entries) == 0 {
		fmt.Fprintln(w, "No matching entries found...")
		return
	}
	for i, e := range res.Entries {
		fmt.Fprintf(w, "%3d. %s", i+1, e.Title)
		if g := e.Group(); g != "/" {
			fmt.Fprintf(w, "  [%s]", strings.TrimPrefix(g, "/"))
		}
		fmt.Fprintln(w)
	}
	if more := res.More(); more > 0 {
		fmt.Fprintf(w, "...%d more results available, please refine the search query...\n", more)
	}
}

func fieldText(f models.Field) string {
	if !f.Valid {
		return notSet
	}
	return f.Value
}

// printEntry shows an entry. The password is only reported as set or not.
func printEntry(w io.Writer, e models.Entry) {
	fmt.Fprintf(w, "Title:    %s\n", e.Title)
	fmt.Fprintf(w, "Path:     %s\n", e.Path)
	fmt.Fprintf(w, "Username: %s\n", fieldText(e.Username))
	pw := notSet
	if e.Password.Valid {
		pw = maskedSecret
	}
	fmt.Fprintf(w, "Password: %s\n", pw)
	fmt.Fprintf(w, "URL:      %s\n", fieldText(e.URL))
	if e.Notes.Valid && e.Notes.Value != "" {
		fmt.Fprintf(w, "Notes:\n%s\n", e.Notes.Value)
	}
}

func printStatus(w io.Writer, st session.Status, now time.Time) {
	fmt.Fprintf(w, "Database: %s\n", st.Database)
	fmt.Fprintf(w, "State:    %s\n", st.State)
	if st.State != session.Unlocked {
		return
	}
	fmt.Fprintf(w, "Unlocked: %s\n", st.UnlockedAt.Format(time.DateTime))
	if st.NeverExpires {
		fmt.Fprintln(w, "Expires:  on lock")
		return
	}
	fmt.Fprintf(w, "Expires:  %s (in %s)\n", st.ExpiresAt.Format(time.DateTime), st.ExpiresAt.Sub(now).Round(time.Second))
}
