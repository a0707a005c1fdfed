package hero

// Hero is one playable hero. Rows may be minimal stubs when a match document
// references a hero the reference sync has not seen yet.
type Hero struct {
	ID            int64
	Name          string
	LocalizedName string
	PrimaryAttr   string
	AttackType    string
	Roles         []string
}
