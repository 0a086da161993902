// Public domain.

package main

import "github.com/soniakeys/hscana/internal/hsprog"

func main() {
	hsprog.Main()
}
