// Package audio plays the current track and feeds the visualizer.
//
// # Engine
//
// [Engine] is the only owner of the media [Element]. It runs the Idle, Loading, Playing, Paused, and Errored
// states, decides when a load autoplays, and routes the end of a track to repeat one or to a [Sequencer].
//
// # Element
//
// [BeepElement] decodes mp3, wav, flac, and ogg vorbis with beep and plays through the system speaker.
// Every frame it outputs is copied into the [Analyser].
//
// # Analysis
//
// [Analyser] keeps the last 2048 mono samples and produces byte frequency data the same way a browser
// AnalyserNode does: Blackman window, FFT, 0.8 time smoothing, -100..-30 dB mapped onto 0..255.
//
// # Artwork
//
// [ArtworkProbe] reads embedded cover art from downloaded tracks once per track and the engine publishes
// the result to subscribers as an [ArtworkUpgrade].
package audio
