//go:build unix

package source

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var madviseFlags = map[Advice]int{
	AdviceNormal:     unix.MADV_NORMAL,
	AdviceRandom:     unix.MADV_RANDOM,
	AdviceSequential: unix.MADV_SEQUENTIAL,
	AdviceWillNeed:   unix.MADV_WILLNEED,
}

func madvise(b []byte, advice Advice) error {
	flag, ok := madviseFlags[advice]
	if !ok {
		return fmt.Errorf("unknown advice %d", advice)
	}

	err := unix.Madvise(b, flag)
	if err != nil {
		return fmt.Errorf("madvise failed: %w", err)
	}

	return nil
}
