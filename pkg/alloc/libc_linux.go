package alloc

const libcName = "libc.so.6"
