package ledger

// checkScript 는 날짜 전환, 한도 검사, 증가, idempotency 토큰 중복 제거를
// 서버 측에서 한 번에 처리한다. 동시 요청 직렬화는 스크립트 실행의
// 원자성에 위임된다.
//
// KEYS[1] 카운터 해시 {date, count}
// KEYS[2] 오늘 과금된 토큰 집합
// ARGV: today, limit, token, token_ttl_seconds, counter_ttl_seconds
// 반환: {admitted(0|1), count}
const checkScript = `
local counter_key = KEYS[1]
local tokens_key = KEYS[2]
local today = ARGV[1]
local limit = tonumber(ARGV[2])
local token = ARGV[3]
local token_ttl = tonumber(ARGV[4])
local counter_ttl = tonumber(ARGV[5])

local date = redis.call('HGET', counter_key, 'date')
local count = tonumber(redis.call('HGET', counter_key, 'count') or '0')
if date ~= today then
  count = 0
end

if token ~= '' and redis.call('SISMEMBER', tokens_key, token) == 1 then
  return {1, count}
end

if count >= limit then
  return {0, count}
end

count = count + 1
redis.call('HSET', counter_key, 'date', today, 'count', count)
redis.call('EXPIRE', counter_key, counter_ttl)
if token ~= '' then
  redis.call('SADD', tokens_key, token)
  redis.call('EXPIRE', tokens_key, token_ttl)
end
return {1, count}
`
