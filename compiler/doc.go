/*

Process of compilation

Assembly Text ->
	parse ->
Flat Instruction Stream (asmparse) ->
	lift ->
Mid-Level IR Module (ir, compiler/lifter) ->
	lower ->
Stack-Machine Module (wasmtext, compiler/lowerer) ->
Textual Module + Binary Stub

*/
package compiler
