// Command bindings builds DocQL as a C shared library
// (go build -buildmode=c-shared) for use from other languages.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"
)

//export docql_open_memory
func docql_open_memory() C.int {
	handle, err := openMemory()
	if err != nil {
		return -1
	}
	return C.int(handle)
}

//export docql_open_file
func docql_open_file(path *C.char) C.int {
	handle, err := openFile(C.GoString(path))
	if err != nil {
		return -1
	}
	return C.int(handle)
}

//export docql_close
func docql_close(handle C.int) C.int {
	if err := closeHandle(int(handle)); err != nil {
		return -1
	}
	return 0
}

// docql_execute returns a JSON response the caller releases with docql_free.
//
//export docql_execute
func docql_execute(handle C.int, query *C.char) *C.char {
	return C.CString(string(execute(int(handle), C.GoString(query))))
}

//export docql_free
func docql_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func main() {}
