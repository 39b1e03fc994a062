package matrix

// DeviceMatrix is the stamping surface of the scattering system.
type DeviceMatrix interface {
	AddComplexElement(i, j int, v complex128) error // 1-based indexing
	AddComplexRHS(i int, v complex128) error
}
