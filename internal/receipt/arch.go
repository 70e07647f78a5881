package receipt

// Mach cpu_type_t values for the architecture names lsbom's --arch flag
// accepts. The 64-bit ABI bit and the ILP32-on-64-bit-hardware bit are
// OR'd into the base 32-bit type the same way Apple's headers do it.
const (
	cpuArchABI64   = 0x01000000
	cpuArchABI6432 = 0x02000000

	cpuTypeHPPA    = 11
	cpuTypeARM     = 12
	cpuTypeSPARC   = 14
	cpuTypeX86     = 7
	cpuTypePowerPC = 18
)

// archNames maps the names accepted by --arch to their cpu_type_t value.
var archNames = map[string]uint32{
	"hppa":      cpuTypeHPPA,
	"arm":       cpuTypeARM,
	"arm64":     cpuTypeARM | cpuArchABI64,
	"arm64_32":  cpuTypeARM | cpuArchABI6432,
	"sparc":     cpuTypeSPARC,
	"x86":       cpuTypeX86,
	"i386":      cpuTypeX86,
	"x86_64":    cpuTypeX86 | cpuArchABI64,
	"powerpc":   cpuTypePowerPC,
	"ppc":       cpuTypePowerPC,
	"powerpc64": cpuTypePowerPC | cpuArchABI64,
	"ppc64":     cpuTypePowerPC | cpuArchABI64,
}

// CPUTypeForArch resolves an --arch name to its Mach cpu_type_t value.
func CPUTypeForArch(name string) (uint32, bool) {
	cpuType, ok := archNames[name]
	return cpuType, ok
}

// ArchForCPUType returns a canonical name for cpuType, for lsbom's
// human-readable output. Ambiguous aliases (i386 vs x86, ppc vs powerpc)
// resolve to the first-listed form.
func ArchForCPUType(cpuType uint32) (string, bool) {
	switch cpuType {
	case cpuTypeHPPA:
		return "hppa", true
	case cpuTypeARM:
		return "arm", true
	case cpuTypeARM | cpuArchABI64:
		return "arm64", true
	case cpuTypeARM | cpuArchABI6432:
		return "arm64_32", true
	case cpuTypeSPARC:
		return "sparc", true
	case cpuTypeX86:
		return "x86", true
	case cpuTypeX86 | cpuArchABI64:
		return "x86_64", true
	case cpuTypePowerPC:
		return "powerpc", true
	case cpuTypePowerPC | cpuArchABI64:
		return "powerpc64", true
	default:
		return "", false
	}
}
