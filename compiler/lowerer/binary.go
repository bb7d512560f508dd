package lowerer

// generateBinary produces the binary envelope stub: a valid wasm magic
// number and version, then a function section and a code section, each
// written as id, a size byte of 1, and a count byte of funcCount, then
// one code entry per function made of a body-size byte of 1 and a
// locals-count byte of zero. The function section lists no type indices
// and no body carries an end opcode or any instruction encoding; it has
// no type section either, and nothing downstream of the lowerer is
// expected to load this as a runnable module.
func generateBinary(funcCount int) []byte {
	b := []byte{
		0x00, 0x61, 0x73, 0x6D, // \0asm
		0x01, 0x00, 0x00, 0x00, // version 1
		0x03, 0x01, byte(funcCount), // function section: count only, no type indices
		0x0A, 0x01, byte(funcCount), // code section header
	}
	for i := 0; i < funcCount; i++ {
		b = append(b, 0x01, 0x00) // body size 1, zero locals, no end opcode
	}
	return b
}
