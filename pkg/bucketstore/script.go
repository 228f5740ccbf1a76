package bucketstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/redis/go-redis/v9"
)

// luaConsume refills and consumes a single bucket atomically.
//
// KEYS[1] = bucket key
// ARGV    = capacity, refill tokens, refill interval nanos, permits, ttl seconds
// Reply   = {consumed 0|1, remaining, wait nanos, reset nanos}
//
// Server time comes from Redis itself so node clocks never skew decisions.
// Internally times are microseconds: Redis TIME resolves to microseconds and
// the smaller magnitude keeps every value inside Lua's exact integer range.
// Nanosecond arguments and replies are converted at the boundary.
const luaConsume = `
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local interval = math.floor(tonumber(ARGV[3]) / 1000)
local permits = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])
if interval < 1 then
  interval = 1
end

local t = redis.call('TIME')
local now = t[1] * 1000000 + t[2]

local state = redis.call('HMGET', KEYS[1], 'tokens', 'refilled_at')
local tokens = tonumber(state[1])
local anchor = tonumber(state[2])
if tokens == nil or anchor == nil then
  tokens = capacity
  anchor = now
end

local elapsed = now - anchor
if elapsed > 0 then
  local added = math.floor(elapsed * refill / interval)
  if added > 0 then
    tokens = tokens + added
    if tokens > capacity then
      tokens = capacity
    end
    anchor = anchor + math.floor(added * interval / refill)
  end
end

if tokens >= permits then
  tokens = tokens - permits
  redis.call('HSET', KEYS[1], 'tokens', tokens, 'refilled_at', string.format('%d', anchor))
  redis.call('EXPIRE', KEYS[1], ttl)
  local reset = math.ceil((capacity - tokens) * interval / refill)
  return {1, tokens, 0, reset * 1000}
end

local wait = math.ceil((permits - tokens) * interval / refill)
return {0, tokens, wait * 1000, wait * 1000}
`

// luaConsumeMulti refills and consumes every band of one rule atomically.
// All bands commit together or none do, so a rejecting minute band never
// drains the second band next to it.
//
// KEYS  = one bucket key per band
// ARGV  = permits, then per band: capacity, refill tokens, refill interval
//         nanos, ttl seconds
// Reply = {consumed 0|1, then per band: remaining, wait nanos, reset nanos}
const luaConsumeMulti = `
local n = #KEYS
local permits = tonumber(ARGV[1])

local t = redis.call('TIME')
local now = t[1] * 1000000 + t[2]

local capacity = {}
local refill = {}
local interval = {}
local ttl = {}
local tokens = {}
local anchor = {}
local consumed = 1

for i = 1, n do
  local base = (i - 1) * 4 + 1
  capacity[i] = tonumber(ARGV[base + 1])
  refill[i] = tonumber(ARGV[base + 2])
  interval[i] = math.floor(tonumber(ARGV[base + 3]) / 1000)
  if interval[i] < 1 then
    interval[i] = 1
  end
  ttl[i] = tonumber(ARGV[base + 4])

  local state = redis.call('HMGET', KEYS[i], 'tokens', 'refilled_at')
  local tk = tonumber(state[1])
  local an = tonumber(state[2])
  if tk == nil or an == nil then
    tk = capacity[i]
    an = now
  end

  local elapsed = now - an
  if elapsed > 0 then
    local added = math.floor(elapsed * refill[i] / interval[i])
    if added > 0 then
      tk = tk + added
      if tk > capacity[i] then
        tk = capacity[i]
      end
      an = an + math.floor(added * interval[i] / refill[i])
    end
  end

  tokens[i] = tk
  anchor[i] = an
  if tk < permits then
    consumed = 0
  end
end

local out = {consumed}
for i = 1, n do
  local tk = tokens[i]
  local wait = 0
  if consumed == 1 then
    tk = tk - permits
    redis.call('HSET', KEYS[i], 'tokens', tk, 'refilled_at', string.format('%d', anchor[i]))
    redis.call('EXPIRE', KEYS[i], ttl[i])
  elseif tk < permits then
    wait = math.ceil((permits - tk) * interval[i] / refill[i])
  end
  local reset
  if wait > 0 then
    reset = wait
  elseif tk < capacity[i] then
    reset = math.ceil((capacity[i] - tk) * interval[i] / refill[i])
  else
    reset = 0
  end
  out[#out + 1] = tk
  out[#out + 1] = wait * 1000
  out[#out + 1] = reset * 1000
end
return out
`

// script is a server-side script invoked by its content hash. The source is
// uploaded when the store opens; a NOSCRIPT reply (flushed script cache,
// failover to a fresh node) triggers exactly one re-upload and retry.
type script struct {
	src string
	sha string
}

func newScript(src string) *script {
	sum := sha1.Sum([]byte(src))
	return &script{src: src, sha: hex.EncodeToString(sum[:])}
}

func (s *script) load(ctx context.Context, c RedisClient) error {
	return c.ScriptLoad(ctx, s.src).Err()
}

func (s *script) run(ctx context.Context, c RedisClient, keys []string, args ...any) (any, error) {
	v, err := c.EvalSha(ctx, s.sha, keys, args...).Result()
	if err == nil || !redis.HasErrorPrefix(err, "NOSCRIPT") {
		return v, err
	}
	if err := s.load(ctx, c); err != nil {
		return nil, err
	}
	return c.EvalSha(ctx, s.sha, keys, args...).Result()
}
