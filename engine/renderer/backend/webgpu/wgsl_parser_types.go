package webgpu

// wgslTypeLayout holds the byte size and alignment for a WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// fieldSlot is the placement of one uniform struct member inside its buffer.
type fieldSlot struct {
	offset uint64
	size   uint64
}

// resourceDecl is one @group/@binding variable declared by a shader stage.
type resourceDecl struct {
	group    uint32
	binding  uint32
	name     string
	typeName string
	// addressSpace is the var<...> qualifier, empty for handle types.
	addressSpace string
}
