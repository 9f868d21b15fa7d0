// Package models contains GORM persistence models that map to database tables.
// They are kept apart from domain entities so the domain stays free of ORM tags;
// each model converts to and from its domain type with ToDomain / FromDomain.
package models
