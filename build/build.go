package build

var (
	Name    = "routefmt"
	Version = "v0.0.0+dev"
)
