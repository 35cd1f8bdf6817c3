// Package upload routes multipart file uploads to a storage category,
// rewrites the filename and enforces the MIME allow-list.
package upload

import "sort"

// Destination is where an upload lands: uploads/<Category>/<Prefix>-...
type Destination struct {
	Category string `json:"category"`
	Prefix   string `json:"prefix"`
}

// General is the destination for any mount path not in the table.
var General = Destination{Category: "general", Prefix: "file"}

var mounts = map[string]Destination{
	"/api/v1/facilities":      {Category: "facilities", Prefix: "facility"},
	"/api/v1/users":           {Category: "users", Prefix: "user"},
	"/api/v1/inventory-items": {Category: "inventory", Prefix: "inventory"},
	"/api/v1/companies":       {Category: "companies", Prefix: "company"},
	"/api/v1/company":         {Category: "company", Prefix: "company"},
	"/api/v1/support":         {Category: "support", Prefix: "support"},
}

// Resolve maps the mount path of an upload route to its destination.
// Only exact matches count; everything else goes to General.
func Resolve(mountPath string) Destination {
	if d, ok := mounts[mountPath]; ok {
		return d
	}
	return General
}

// MountPaths lists the known mount paths in sorted order.
func MountPaths() []string {
	out := make([]string, 0, len(mounts))
	for p := range mounts {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
