package params

const (
	// SecParam is the computational security parameter κ, in bits.
	SecParam = 256
	SecBytes = SecParam / 8

	// OTParam is the number of base OT instances seeding one correlated
	// OT extension. It equals the bit width of the correlation Δ.
	OTParam = SecParam
	OTBytes = OTParam / 8

	// StatParam is the statistical security parameter, in bits.
	StatParam = 80
)
