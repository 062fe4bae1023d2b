// Package debug holds env controlled switches for diagnostic output.
package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Store   bool
	Tree    bool
	History bool
	Load    bool
}

var d *debug

func init() {
	d = &debug{}
	d.Store = boolEnv("PP_DEBUG_STORE")
	d.Tree = boolEnv("PP_DEBUG_TREE")
	d.History = boolEnv("PP_DEBUG_HISTORY")
	d.Load = boolEnv("PP_DEBUG_LOAD")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Store() bool {
	return d.Store
}
func Tree() bool {
	return d.Tree
}
func History() bool {
	return d.History
}
func Load() bool {
	return d.Load
}
