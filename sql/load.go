// Package sql embeds and loads the database's stored functions using a
// go:embed + check-then-load pattern: re-running a Load is safe because it
// checks pg_proc before re-executing the function bodies, and re-running
// Init is safe because init.sql uses CREATE EXTENSION IF NOT EXISTS.
package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relationships.sql
var relationshipsSQL string

//go:embed documents.sql
var documentsSQL string

// EntitiesFunctions lists the stored functions LoadEntitiesSql must create.
var EntitiesFunctions = []string{
	"init_entities",
	"upsert_entity",
	"select_entity",
	"select_similar_entities",
	"count_entities",
	"entity_type_counts",
	"delete_entity",
}

// RelationshipsFunctions lists the stored functions LoadRelationshipsSql must create.
var RelationshipsFunctions = []string{
	"init_relationships",
	"insert_relationship",
	"count_relationships",
	"select_relationships_for_entity",
}

// DocumentsFunctions lists the stored functions LoadDocumentsSql must create.
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"update_document_status",
	"select_document_by_path",
}

// Init creates the extensions the schema depends on (vector, pgcrypto).
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadEntitiesSql loads the entities stored functions, skipping execution
// if force is false and all functions already exist.
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, entitiesSQL, EntitiesFunctions, force, "entities")
}

// LoadRelationshipsSql loads the relationships stored functions.
func LoadRelationshipsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, relationshipsSQL, RelationshipsFunctions, force, "relationships")
}

// LoadDocumentsSql loads the documents stored functions.
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, documentsSQL, DocumentsFunctions, force, "documents")
}

// LoadAllSql loads every stored function group.
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}
	if err := LoadRelationshipsSql(db, force); err != nil {
		return err
	}
	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}
	return nil
}

func loadFunctions(db *sql.DB, body string, functions []string, force bool, label string) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", label, err)
		}
		if exist {
			return nil
		}
	}

	// The LANGUAGE sql functions reference tables that the init_* functions
	// create later, so body validation is deferred to the first call.
	if _, err := db.Exec("SET check_function_bodies = false;\n" + body); err != nil {
		return fmt.Errorf("error executing %s SQL: %w", label, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", label)
	}

	log.Printf("SQL %s functions loaded successfully", label)
	return nil
}

// checkFunctions verifies that all required functions exist in the database.
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
