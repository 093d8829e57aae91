// Package ir provides the program representation consumed by live-range
// analysis: modules, computations, instructions, shapes, schedules, and the
// values and buffers produced by dataflow analysis.
//
// All other internal packages import ir; ir imports nothing internal. This
// keeps IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Instruction names are unique across a module
//   - Computation IDs are assigned by the module in declaration order
//   - Byte sizes are int64 and never computed with floats
//   - Size computation returns *ShapeError instead of panicking
package ir
