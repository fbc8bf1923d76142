package sm3_test

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/opentoys/sm3/crypto/sm3"
)

func ExampleSum() {
	sum := sm3.Sum([]byte("hello world\n"))
	fmt.Printf("%x", sum)
	// Output: 4cc2036b86431b5d2685a04d289dfe140a36baa854b01cb39fcd6009638e4e7a
}

func ExampleNew() {
	h := sm3.New()
	h.Write([]byte("hello "))
	h.Write([]byte("world\n"))
	sum, e := h.Finalize()
	if e != nil {
		log.Fatal(e)
	}
	fmt.Printf("%x", sum)
	// Output: 4cc2036b86431b5d2685a04d289dfe140a36baa854b01cb39fcd6009638e4e7a
}

func ExampleDigest_Sum() {
	h := sm3.New()
	io.Copy(h, strings.NewReader("abc"))
	fmt.Printf("%x", h.Sum(nil))
	// Output: 66c7f0f462eeedd9d1f2d46bdc10e4e24167c4875cf2f7a2297da02b8f4ba8e0
}

func ExampleNew_file() {
	f, err := os.Open("file.txt")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	h := sm3.New()
	if _, err := io.Copy(h, f); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%x", h.Sum(nil))
}
