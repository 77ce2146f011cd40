package framesync

// Version is the framesync release.
var Version = "0.3.0"
