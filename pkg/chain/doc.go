// Package chain 实现哈希链：一个有序的 payload 序列，
// 除第一个节点 (genesis) 外，每个节点都记录前一个节点的哈希，
// 使用者可以在事后验证顺序和内容没有被篡改。
//
// 哈希算法不由本包决定，调用者通过 Strategy 注入。
// 使用弱哈希 (进程内 identity、xxhash 等) 时只能得到“单进程内的顺序完整性”，
// 无法抵御有意的篡改者；需要防篡改时请注入 SHA-256 / BLAKE3 等强哈希 (见 pkg/hashing)。
//
// 本包不做持久化，也不做并发控制：Chain 的修改必须由调用者串行化。
package chain
