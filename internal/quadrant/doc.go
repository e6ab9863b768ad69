// Package quadrant partitions the canvas into fixed-size square regions and
// tracks which connections are subscribed to each of them.
package quadrant
