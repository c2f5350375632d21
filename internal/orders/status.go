package orders

// UnitStatus is where a single physical unit sits in the pipeline.
type UnitStatus string

const (
	StatusOrdered   UnitStatus = "ORDERED"
	StatusConfirmed UnitStatus = "CONFIRMED"
	StatusDeployed  UnitStatus = "DEPLOYED"
)

var validNext = map[UnitStatus]map[UnitStatus]bool{
	StatusOrdered:   {StatusConfirmed: true},
	StatusConfirmed: {StatusDeployed: true},
	StatusDeployed:  {StatusConfirmed: true}, // undeploy
}

func CanTransition(from, to UnitStatus) bool {
	return validNext[from][to]
}

// Status of a confirmed item row.
func (c ConfirmedItem) Status() UnitStatus {
	if c.Deployed {
		return StatusDeployed
	}
	return StatusConfirmed
}
