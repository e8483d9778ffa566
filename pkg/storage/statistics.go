package storage

// DatabaseStats summarizes one database
type DatabaseStats struct {
	Name      string
	Records   int
	Exchanges int
	Unlinked  int
	ByType    map[string]int
}

// Stats returns record and exchange counts
func (db *Database) Stats() DatabaseStats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stats := DatabaseStats{
		Name:    db.name,
		Records: len(db.records),
		ByType:  make(map[string]int, len(db.byType)),
	}
	for nodeType, codes := range db.byType {
		stats.ByType[nodeType] = len(codes)
	}
	for _, rec := range db.records {
		stats.Exchanges += len(rec.Exchanges)
		for _, exc := range rec.Exchanges {
			if !exc.Linked() {
				stats.Unlinked++
			}
		}
	}
	return stats
}

// Stats returns statistics for every database in name order
func (c *Catalog) Stats() []DatabaseStats {
	dbs := c.databases()
	out := make([]DatabaseStats, len(dbs))
	for i, db := range dbs {
		out[i] = db.Stats()
	}
	return out
}
