// Package framing derives camera and lighting placement from asset geometry.
// Given mesh nodes with world transforms it computes a world bounding volume,
// the camera distance or orthographic scale that keeps the asset in frame,
// the camera pose on a sphere around the target, safe clip planes, and a
// deterministic light rig. Every operation is a pure function of its inputs.
package framing
