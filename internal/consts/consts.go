package consts

const (
	C            = 299792458.0 // Speed of light in vacuum (m/s)
	WavelengthC  = 1550e-9     // Reference wavelength of the EBeam models (m)
	DefaultStart = 1500e-9     // Default analyzer start wavelength (m)
	DefaultStop  = 1600e-9     // Default analyzer stop wavelength (m)
	DefaultSteps = 1000        // Default analyzer point count
)

const (
	TE = 1 // orthogonal_identifier for TE mode
	TM = 2 // orthogonal_identifier for TM mode
)
