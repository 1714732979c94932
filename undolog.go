package undolog

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/Hopsan/hopsan-sub008.Version=...".
var Version = "0.1.0-dev"
