package wavesim

import "fmt"

// OpenCLPrelude returns the definitions OpenCL renditions rely on: the TEXEL
// storage type, LOAD and STORE accessors and resolve for neighbor addressing.
func OpenCLPrelude(mode AddressMode, format TextureFormat) string {
	storage := `#define TEXEL float4
#define LOAD(buf, i) ((buf)[(i)])
#define STORE(buf, i, v) ((buf)[(i)] = (v))
`
	if format == Float16 {
		storage = `#define TEXEL half
#define LOAD(buf, i) vload_half4((i), (buf))
#define STORE(buf, i, v) vstore_half4_rte((v), (i), (buf))
`
	}
	resolve := `inline int resolve(int i, int n)
{
    int r = i % n;
    return r < 0 ? r + n : r;
}
`
	if mode == Clamp {
		resolve = `inline int resolve(int i, int n)
{
    return clamp(i, 0, n - 1);
}
`
	}
	return storage + resolve
}

// WGSLPrelude returns the resolve function WGSL renditions use for neighbor
// addressing.
func WGSLPrelude(mode AddressMode) string {
	body := "return ((i % n) + n) % n;"
	if mode == Clamp {
		body = "return clamp(i, 0, n - 1);"
	}
	return fmt.Sprintf("fn resolve(i: i32, n: i32) -> i32 {\n    %s\n}\n\n", body)
}
