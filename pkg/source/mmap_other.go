//go:build !unix

package source

func madvise([]byte, Advice) error {
	return nil
}
