// Package blink drives the badge blink cycle.
//
// A Controller alternates an Icon Sink between a badged icon (Visible) and the
// plain icon (Hidden) every half period while notifying, and holds the plain
// icon while Idle. Badge draws are asynchronous; each notify, cancel or
// source change starts a new session, and a draw that completes for an older
// session, or while the cycle is not Visible, is dropped instead of written.
package blink
