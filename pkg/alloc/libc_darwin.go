package alloc

const libcName = "/usr/lib/libSystem.B.dylib"
