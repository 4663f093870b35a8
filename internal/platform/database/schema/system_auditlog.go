// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the relational tables and columns used by stores.
package schema

// SystemAuditLogTable represents the 'system.auditlog' table
type SystemAuditLogTable struct {
	Table      string
	ID         string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Detail     string
	IPAddress  string
	CreatedAt  string
}

var SystemAuditLog = SystemAuditLogTable{
	Table:      "system.auditlog",
	ID:         "id",
	ActorID:    "actorid",
	Action:     "action",
	EntityType: "entitytype",
	EntityID:   "entityid",
	Detail:     "detail",
	IPAddress:  "ipaddress",
	CreatedAt:  "createdat",
}
