package diag

// Reporter is the minimal sink rules emit into.
// Implementations: BagReporter (stores into a Bag) and Collector.
type Reporter interface {
	Report(d Diagnostic) bool
}

// BagReporter writes into *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) bool {
	if r.Bag == nil {
		return false
	}
	return r.Bag.Add(d)
}

// Collector accumulates without a limit.
type Collector struct {
	Items []Diagnostic
}

func (c *Collector) Report(d Diagnostic) bool {
	c.Items = append(c.Items, d)
	return true
}

// Drain sorts everything collected and reports it into r in order, stopping
// at the first rejection. It returns how many were accepted.
func (c *Collector) Drain(r Reporter) int {
	Sort(c.Items)
	n := 0
	for _, d := range c.Items {
		if !r.Report(d) {
			break
		}
		n++
	}
	return n
}
