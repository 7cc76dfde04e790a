// Package monitor renders diagnostic output for a lane tracking session:
// PNG plots of individual frames and of the fitted coefficients over time
// (gonum/plot), and an interactive HTML coefficient chart (go-echarts).
package monitor
