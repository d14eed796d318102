package bytecode

// OptionalDefaults reads count OpLoadConstant pseudo-instructions
// starting at instruction index pc — the constant-pool indices
// embedded immediately after a function's entry instruction (one per
// optional positional parameter in declaration order, or a single one
// holding the named-defaults list; see OpLoadConstant) — and resolves
// them against bc's pool.
func (bc *Bytecode) OptionalDefaults(pc int, count int) []any {
	defaults := make([]any, count)
	for i := 0; i < count; i++ {
		instr := bc.Instrs[pc+i]
		if instr.Op != OpLoadConstant {
			panic("bytecode: expected OpLoadConstant while reading optional parameter defaults")
		}
		defaults[i] = bc.Pool.At(instr.D())
	}
	return defaults
}
