package main

import (
	"github.com/beanboi7/chyp8/cmd"
	"github.com/retroenv/retrogolib/buildinfo"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	cmd.Execute(buildinfo.Version(version, commit, date))
}
