// Package badge describes the notification badge drawn onto a favicon:
// its options, where it sits on the icon, and the color it is painted in.
package badge
