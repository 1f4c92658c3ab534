// Package config loads Firestore connector job files.
//
// A job file is YAML. ${VAR_NAME} is replaced with the environment
// variable of that name while loading; ${macro:name} is left alone and
// marks its field as deferred, to be filled in by the host framework at
// run time.
//
//	name: users-export
//	connection:
//	  referenceName: users_export
//	  project: ${GOOGLE_CLOUD_PROJECT}
//	  databaseName: ${macro:database}
//	  serviceAccountType: filePath
//	  serviceFilePath: /secrets/sa.json
//	source:
//	  collection: users
//	  fields: [name, email]
//	logging:
//	  level: info
//
// Use JobConfig.SourceSpec or JobConfig.SinkSpec to turn the file into
// the spec that validation and encoding work on.
package config
