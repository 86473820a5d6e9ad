// Package store persists readings, alarm events and the device presence record.
//
// Every driver implements Repository: MemoryRepository keeps records in
// process, FileRepository snapshots them to a JSON file, PostgresRepository
// and ClickHouseRepository write to a database. Open picks a driver from
// the storage settings.
package store
