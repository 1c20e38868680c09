// Package schema implements the typed field engine behind managed states.
//
// An Object owns the field values for a single target. Every write runs the
// field type's deserializer and validator before the value is stored, every
// read runs the serializer, and registered change and error handlers observe
// the outcome. Field names starting with an underscore are treated as private:
// they are stored verbatim and bypass types and handlers entirely.
//
// Objects are not safe for concurrent use.
package schema
