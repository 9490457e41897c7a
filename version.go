package main

// Version is the bumpkit CLI version. Releases rewrite it in place.
var Version = "0.1.0"
