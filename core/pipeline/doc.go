// Package pipeline runs command lines as chains of OS processes.
//
// For each pipeline the executor builds a plan up front: the arguments of
// every stage after alias and pathname expansion, where its standard input
// comes from and which Sink receives its output. Stages are then spawned left
// to right, each in a new process group. The last stage's group is given the
// controlling terminal and waited for; if it stops, it is recorded in the job
// table and can later be resumed with Resume or killed with KillAll.
//
// Job control relies on POSIX process groups and is not available on
// Windows.
package pipeline
