// Package permission implements the process-wide speech recognition
// permission gate.
//
// Gate asks an Authorizer at most once per process. LocalAuthorizer keeps the
// user's decision in a consent file, prompts on an interactive terminal when
// no decision exists, and honours MURMUR_SPEECH_RESTRICTED for locked-down
// machines.
package permission
