package utils

// Version is the tool version, overridden at build time with
// -ldflags "-X github.com/imedwei/backupdbtool/internal/utils.Version=...".
var Version = "0.1.0"
