// Package scene defines the immutable scene graph produced by evaluating a
// scene script: meshes, the transforms that place them and the collections
// that group and hide them.
package scene
