// Command galleryofbabel explores the seed space of a deterministic
// image generator, scoring candidates on CPU and (optionally) GPU,
// and submits the best finds to a remote leaderboard.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
