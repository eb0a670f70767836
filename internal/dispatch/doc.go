// Package dispatch turns one handler invocation into one launched process.
//
// The pipeline is linear and every failure is terminal:
//
//  1. validate the URL prefix                     -> UsageError
//  2. extract the routing key and payload         -> UsageError (empty key)
//  3. assemble the target's argument vector
//  4. check RegisteredApps.xml exists             -> ConfigNotFoundError
//  5. verify .checksums if present, then parse    -> IntegrityError, ConfigParseError
//  6. look up the routing key                     -> KeyNotFoundError
//  7. expand environment references in the target -> TargetNotFoundError
//  8. start the target and return without waiting -> LaunchError
//
// Callers render the returned error for the user and pick an exit code with
// ExitCode. When a Recorder is configured, every outcome is journaled; journal
// failures are logged and never change the result.
package dispatch
