// Package desktop holds the best-effort desktop helpers used around the
// search session: raising the prompt window and writing to the clipboard.
// Both shell out to common X11/Wayland tools and fail softly when none is
// installed.
package desktop
